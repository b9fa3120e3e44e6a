package intake

import (
	"errors"
	"fmt"
)

// Failure codes for the intake flow. Every failure is recoverable: the
// session is left either usable or cleanly destroyed, and the user message
// tells the user whether to retry.
const (
	CodeValidation        = "validation"
	CodeSessionNotFound   = "session_not_found"
	CodeBusy              = "busy"
	CodeEmptyBatch        = "empty_batch"
	CodeDeliveryFailed    = "delivery_failed"
	CodePersistenceFailed = "persistence_failed"
)

// Error is the typed failure returned at the intake boundary. UserMessage is
// localized and safe to show in the channel; Message is for the logs and may
// carry internal detail.
type Error struct {
	Code        string
	Message     string
	UserMessage string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsIntakeError unwraps err into an *Error if there is one in the chain.
func AsIntakeError(err error) (*Error, bool) {
	var ie *Error
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

func intakeError(code, message, userMessage string) *Error {
	return &Error{Code: code, Message: message, UserMessage: userMessage}
}

func errValidation(detail string) *Error {
	return intakeError(CodeValidation, detail,
		"Contenuto del documento non valido. Riprova.")
}

func errSessionNotFound() *Error {
	return intakeError(CodeSessionNotFound, "no active session",
		"Nessuna sessione attiva. Usa di nuovo /documents per iniziare.")
}

func errBusy() *Error {
	return intakeError(CodeBusy, "commit already in flight",
		"Invio già in corso, attendi un momento.")
}

func errEmptyBatch() *Error {
	return intakeError(CodeEmptyBatch, "no staged items",
		"Allega almeno un documento prima di inviare!")
}

func errDeliveryFailed() *Error {
	return intakeError(CodeDeliveryFailed, "channel publish failed",
		"Invio nel canale non riuscito. I documenti sono ancora allegati, riprova.")
}

func errPersistenceFailed() *Error {
	return intakeError(CodePersistenceFailed, "batch persist failed",
		"Salvataggio non riuscito. I documenti sono ancora allegati, riprova.")
}

func errDualFailure() *Error {
	return intakeError(CodePersistenceFailed, "batch persist failed and retraction failed",
		"Salvataggio non riuscito e il messaggio pubblicato potrebbe essere rimasto nel canale. Avvisa un amministratore e riprova.")
}
