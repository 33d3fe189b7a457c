package notifx

const (
	TemplateOTP     = "otp_code"
	TemplateWelcome = "welcome"
)

// OTPTemplateData feeds TemplateOTP.
type OTPTemplateData struct {
	Subject       string
	Code          string
	ExpiryMinutes int
}

// WelcomeTemplateData feeds TemplateWelcome.
type WelcomeTemplateData struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

var builtinTemplates = map[string]string{
	TemplateOTP: `<div style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <h2>{{.Subject}}</h2>
  <p>Use the following one-time code:</p>
  <div style="font-size: 24px; font-weight: bold; letter-spacing: 4px;">{{.Code}}</div>
  <p>This code will expire in {{.ExpiryMinutes}} minutes.</p>
</div>`,

	TemplateWelcome: `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Welcome to Auth Builder</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: #4f46e5; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
    .content { background: #f9fafb; padding: 30px; border-radius: 0 0 8px 8px; }
    .credentials { background: #e5e7eb; padding: 20px; border-radius: 6px; margin: 20px 0; }
    .password { font-family: monospace; font-size: 16px; background: #f3f4f6; padding: 10px; border-radius: 4px; }
    .warning { background: #fef3c7; border: 1px solid #f59e0b; padding: 15px; border-radius: 6px; margin: 20px 0; }
    .footer { text-align: center; margin-top: 30px; color: #6b7280; font-size: 14px; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header"><h1>Welcome to Auth Builder</h1></div>
    <div class="content">
      <h2>Hello {{.FirstName}} {{.LastName}},</h2>
      <p>Your account has been successfully created in Auth Builder. Here are your login credentials:</p>
      <div class="credentials">
        <p><strong>Email:</strong> {{.Email}}</p>
        <p><strong>Password:</strong> <span class="password">{{.Password}}</span></p>
      </div>
      <div class="warning">
        <p><strong>Important:</strong> Please change your password after your first login for security purposes.</p>
      </div>
      <p>You can now log in to your account using these credentials.</p>
      <p>If you have any questions or need assistance, please contact your system administrator.</p>
    </div>
    <div class="footer">
      <p>This is an automated message from Auth Builder. Please do not reply to this email.</p>
    </div>
  </div>
</body>
</html>`,
}
