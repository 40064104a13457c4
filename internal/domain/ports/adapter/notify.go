package adapter

import "context"

// ResyncOptions selects what the directory refreshes for a user.
type ResyncOptions struct {
	Base          bool
	AccessRefresh bool
	MacRefresh    bool
}

// DirectorySync pushes a user's access rights to the directory service.
// Calls are fire-and-forget from the billing point of view.
type DirectorySync interface {
	ResyncAccess(ctx context.Context, userID string, opts ResyncOptions) error
}

type Attachment struct {
	Name        string
	ContentType string
	Content     []byte
}

type Mail struct {
	Template    string
	Context     map[string]any
	Recipient   string
	Attachments []Attachment
}

// Mailer sends templated transactional emails.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// AdminAlerter notifies the treasurers of noteworthy payment events.
type AdminAlerter interface {
	Alert(ctx context.Context, text string) error
}
