package types

// Label is the classification outcome attached to a message.
type Label string

const (
	// LabelPhishing marks a message the model considers a phishing attempt.
	LabelPhishing Label = "phishing"
	// LabelNotPhishing marks a message the model considers benign.
	LabelNotPhishing Label = "not_phishing"
	// LabelError marks a message that was recorded even though
	// classification failed (model unavailable, inference error).
	LabelError Label = "error"
)

// Message is a classified mail message as kept in a user's mailbox.
// Messages are immutable once appended; Text is the trimmed body as
// fetched from the provider.
type Message struct {
	Text  string `json:"text"`
	Label Label  `json:"label"`
}
