package chat

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"
)

// ErrorKind categorizes generation failures so callers can react without
// inspecting message text.
type ErrorKind int

const (
	// KindUnexpected covers transport failures and anything unclassified.
	KindUnexpected ErrorKind = iota
	// KindCredentialMissing indicates no API key was selected.
	KindCredentialMissing
	// KindCredentialRejected indicates the backend refused the API key.
	KindCredentialRejected
	// KindEnhancementFailure indicates the enhancement call returned no text.
	KindEnhancementFailure
	// KindParseFailure indicates the enhancement text was not the expected JSON.
	KindParseFailure
	// KindNoMediaProduced indicates the image call returned no image part.
	KindNoMediaProduced
	// KindVideoGenerationFailure indicates the video operation failed or returned no URI.
	KindVideoGenerationFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindCredentialMissing:
		return "credential_missing"
	case KindCredentialRejected:
		return "credential_rejected"
	case KindEnhancementFailure:
		return "enhancement_failure"
	case KindParseFailure:
		return "parse_failure"
	case KindNoMediaProduced:
		return "no_media_produced"
	case KindVideoGenerationFailure:
		return "video_generation_failure"
	default:
		return "unexpected"
	}
}

// User-facing messages. The studio UI is Portuguese.
const (
	MsgEnhancementFailure = "Falha ao gerar o prompt aprimorado."
	MsgParseFailure       = "Resposta inválida ao aprimorar o prompt."
	MsgNoImage            = "Nenhuma imagem gerada. O prompt pode ter violado as diretrizes de segurança."
	MsgVideoFailure       = "Falha na geração do vídeo."
	MsgCredentialMissing  = "Nenhuma chave de API selecionada. Selecione uma chave para continuar."
	MsgCredentialRejected = "A chave de API foi rejeitada. Selecione uma chave válida."
	MsgUnexpected         = "Ocorreu um erro inesperado."
)

// GenerationError is returned by every client in this package.
type GenerationError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return e.Message + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Message
	}
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, msg string, err error) *GenerationError {
	return &GenerationError{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the kind of the first GenerationError in err's chain, or
// KindUnexpected when there is none.
func KindOf(err error) ErrorKind {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return KindUnexpected
}

// IsCredentialIssue reports whether err should send the user back to
// credential selection.
func IsCredentialIssue(err error) bool {
	switch KindOf(err) {
	case KindCredentialMissing, KindCredentialRejected:
		return true
	}
	return false
}

// UserMessage returns the text to show for a failed run: the typed message,
// else the underlying failure text, else MsgUnexpected.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		if genErr.Message != "" {
			return genErr.Message
		}
		if genErr.Err != nil && genErr.Err.Error() != "" {
			return genErr.Err.Error()
		}
		return MsgUnexpected
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return MsgUnexpected
}

// IsCredentialError reports whether a backend error means the API key itself
// was refused: 401/403, or a 400 whose payload names the key.
func IsCredentialError(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case 401, 403:
		return true
	case 400:
		text := strings.ToLower(apiErr.Message + " " + apiErr.Status)
		for _, d := range apiErr.Details {
			if reason, ok := d["reason"].(string); ok {
				text += " " + strings.ToLower(reason)
			}
		}
		return strings.Contains(text, "api_key_invalid") || strings.Contains(text, "api key")
	}
	return false
}

// backendError wraps a failed SDK call. Credential refusals are promoted to
// KindCredentialRejected; cancellation passes through untouched.
func backendError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if IsCredentialError(err) {
		return newError(KindCredentialRejected, MsgCredentialRejected, err)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return newError(KindUnexpected, apiErr.Message, err)
	}
	return newError(KindUnexpected, "", err)
}
