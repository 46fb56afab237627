package pipeline

import (
	"context"
	"fmt"
	"strings"

	"voice-ledger-service/internal/models"
)

// Spanish user-facing messages.
const (
	MsgAck             = "🎧 Escuchando..."
	MsgEmptyTranscript = "⚠️ No escuché nada en el audio. Intenta hablar más fuerte."
	MsgNoteSaved       = "📝 Nota guardada."
	msgStructuring     = "⚠️ Error: La IA no entendió los datos. Intenta ser más claro."
	msgStorage         = "❌ Error de conexión con %s."
	msgGeneric         = "❌ Error: %s"
)

// Replier sends text back to the submitter.
type Replier interface {
	Reply(ctx context.Context, text string) error
}

// ReplierFunc adapts a function to the Replier interface.
type ReplierFunc func(ctx context.Context, text string) error

// Reply calls f(ctx, text).
func (f ReplierFunc) Reply(ctx context.Context, text string) error { return f(ctx, text) }

// StructuringFailedReply includes the raw classifier answer so the submitter
// can decide whether to send the message again.
func StructuringFailedReply(raw string) string {
	if raw == "" {
		return msgStructuring
	}
	return msgStructuring + "\nRespuesta: " + raw
}

// StorageUnavailableReply names the backend that could not be reached.
func StorageUnavailableReply(backend string) string {
	return fmt.Sprintf(msgStorage, backend)
}

// ErrorReply carries the underlying message for diagnosis.
func ErrorReply(err error) string {
	return fmt.Sprintf(msgGeneric, err.Error())
}

// TransactionReply echoes the stored fields of a transaction row.
func TransactionReply(row models.StoredRow) string {
	v := row.Values
	var b strings.Builder
	fmt.Fprintf(&b, "✅ %s\n", strings.ToUpper(v[1]))
	fmt.Fprintf(&b, "Contexto: %s\n", v[2])
	fmt.Fprintf(&b, "Cat: %s\n", v[3])
	fmt.Fprintf(&b, "Valor: $%s\n", v[4])
	fmt.Fprintf(&b, "Desc: %s", v[5])
	if len(v) > 6 && v[6] != "" {
		fmt.Fprintf(&b, "\nFactura: %s", v[6])
	}
	return b.String()
}
