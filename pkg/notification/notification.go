package notification

// NoticeType identifies one of the emails the authentication flows send
type NoticeType string

const (
	NoticeVerifyEmail       NoticeType = "verify_email"
	NoticePasswordReset     NoticeType = "password_reset"
	NoticeAlreadyRegistered NoticeType = "already_registered"
)

// NotificationData carries the recipient and the values interpolated into
// the notice template
type NotificationData struct {
	To   string
	Data map[string]string
}

// Notifier delivers a notice to a recipient
type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData) error
}

// NoticeTemplate holds the subject and bodies of a notice. Text is always
// present; Html is optional.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

var noticeTemplates = map[NoticeType]NoticeTemplate{
	NoticeVerifyEmail: {
		Subject: "Verify your email",
		Text: "Thanks for registering!\n\n" +
			"Please use the below token to verify your email address:\n\n{{.Token}}\n",
		Html: "<h4>Verify your email</h4>" +
			"<p>Thanks for registering!</p>" +
			"<p>Please click the below link to verify your email address:</p>" +
			"<p><a href=\"{{.VerifyURL}}\">{{.VerifyURL}}</a></p>",
	},
	NoticePasswordReset: {
		Subject: "Reset your password",
		Text: "Please use the below token to reset your password. " +
			"The token will be valid for {{.ValidFor}}:\n\n{{.Token}}\n",
		Html: "<h4>Reset your password</h4>" +
			"<p>Please click the below link to reset your password. " +
			"The link will be valid for {{.ValidFor}}:</p>" +
			"<p><a href=\"{{.ResetURL}}\">{{.ResetURL}}</a></p>",
	},
	NoticeAlreadyRegistered: {
		Subject: "Email already registered",
		Text: "Your email {{.Email}} is already registered.\n\n" +
			"If you don't know your password you can reset it via the forgot password page.\n",
		Html: "<h4>Email already registered</h4>" +
			"<p>Your email <b>{{.Email}}</b> is already registered.</p>" +
			"<p>If you don't know your password please visit the forgot password page.</p>",
	},
}

// TemplateFor returns the template registered for the notice type
func TemplateFor(noticeType NoticeType) (NoticeTemplate, bool) {
	tmpl, ok := noticeTemplates[noticeType]
	return tmpl, ok
}
