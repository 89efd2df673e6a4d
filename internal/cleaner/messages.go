package cleaner

import (
	"context"
	"errors"
	"fmt"

	"github.com/dbsmedya/phoneclean/internal/container"
	"github.com/dbsmedya/phoneclean/internal/export"
	"github.com/dbsmedya/phoneclean/internal/preflight"
	"github.com/dbsmedya/phoneclean/internal/types"
	"github.com/dbsmedya/phoneclean/internal/verifier"
)

// Support codes shown next to user messages.
const (
	CodeTooLarge       = "E_TOO_LARGE"
	CodeCorrupt        = "E_CORRUPT"
	CodeEncrypted      = "E_ENCRYPTED"
	CodeEmptySheet     = "E_EMPTY_SHEET"
	CodeEmptySelection = "E_EMPTY_SELECTION"
	CodeColumn         = "E_COLUMN"
	CodeExport         = "E_EXPORT"
	CodeBusy           = "E_BUSY"
	CodeFormat         = "E_FORMAT"
	CodeCancelled      = "E_CANCELLED"
	CodeInternal       = "E_INTERNAL"
)

// Message is the user-facing form of a run error.
type Message struct {
	Code string
	Text string
}

func (m Message) String() string {
	return fmt.Sprintf("%s (%s)", m.Text, m.Code)
}

var messages = []struct {
	target error
	msg    Message
}{
	{ErrAlreadyProcessing, Message{CodeBusy, "Another file is being processed. Wait for it to finish and try again."}},
	{context.Canceled, Message{CodeCancelled, "Processing was cancelled."}},
	{context.DeadlineExceeded, Message{CodeCancelled, "Processing took too long and was stopped."}},
	{preflight.ErrInputTooLarge, Message{CodeTooLarge, "The file is too large to process safely. Split it into smaller files or save it as CSV."}},
	{container.ErrEncrypted, Message{CodeEncrypted, "The spreadsheet is password protected. Remove the password and upload it again."}},
	{container.ErrCorruptContainer, Message{CodeCorrupt, "The spreadsheet is damaged and could not be repaired. Open it, save a new copy and try again."}},
	{preflight.ErrEmptySheet, Message{CodeEmptySheet, "The first sheet has no data."}},
	{ErrEmptySelection, Message{CodeEmptySelection, "No phone number column was found. Select the column that holds the numbers."}},
	{types.ErrColumnOutOfRange, Message{CodeColumn, "A selected column does not exist in the header row."}},
	{types.ErrHeaderOutOfRange, Message{CodeColumn, "The selected header row does not exist."}},
	{ErrUnsupportedFormat, Message{CodeFormat, "Unsupported file type. Use .csv, .tsv, .txt, .xlsx or .xlsm."}},
	{export.ErrSerialization, Message{CodeExport, "The cleaned file could not be written."}},
	{verifier.ErrMismatch, Message{CodeExport, "The cleaned file did not pass verification."}},
}

// UserMessage maps a run error to one human-readable message with a
// support code. Unknown errors map to CodeInternal.
func UserMessage(err error) Message {
	if err == nil {
		return Message{}
	}
	for _, m := range messages {
		if errors.Is(err, m.target) {
			return m.msg
		}
	}
	return Message{CodeInternal, "Something went wrong while processing the file."}
}
