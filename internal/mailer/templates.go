package mailer

import "html/template"

type confirmationData struct {
	FirstName         string
	LastName          string
	Position          string
	Department        string
	EmploymentType    string
	ApplicationNumber string
	SubmittedAt       string
	Company           string
	Year              int
}

type statusData struct {
	FirstName         string
	LastName          string
	Position          string
	ApplicationNumber string
	Notes             string
	Subject           string
	Message           string
	Color             string
	Company           string
	Year              int
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
              color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0; }
    .content { background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px; }
    .info-box { background: white; padding: 20px; border-radius: 8px; margin: 20px 0;
                border-left: 4px solid #667eea; }
    .info-row { display: flex; justify-content: space-between; padding: 8px 0;
                border-bottom: 1px solid #eee; }
    .label { font-weight: bold; color: #667eea; }
    .footer { text-align: center; padding: 20px; color: #999; font-size: 12px; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>Application Received!</h1>
    </div>
    <div class="content">
      <p>Dear <strong>{{.FirstName}} {{.LastName}}</strong>,</p>
      <p>Thank you for submitting your application for the <strong>{{.Position}}</strong> position.
      We have successfully received your application and our recruitment team will review it carefully.</p>
      <div class="info-box">
        <h3 style="margin-top: 0; color: #667eea;">Application Details</h3>
        <div class="info-row"><span class="label">Application Number:</span><span>{{.ApplicationNumber}}</span></div>
        <div class="info-row"><span class="label">Position:</span><span>{{.Position}}</span></div>
        <div class="info-row"><span class="label">Department:</span><span>{{.Department}}</span></div>
        <div class="info-row"><span class="label">Employment Type:</span><span>{{.EmploymentType}}</span></div>
        <div class="info-row"><span class="label">Submitted:</span><span>{{.SubmittedAt}}</span></div>
      </div>
      <h3 style="color: #667eea;">What's Next?</h3>
      <ul>
        <li>Our HR team will review your application within <strong>3-5 business days</strong></li>
        <li>If your qualifications match our requirements, we'll contact you for an interview</li>
        <li>Please keep this email for your records</li>
        <li>You can reference your application number for any inquiries</li>
      </ul>
      <p>Thank you for your interest in joining our team!</p>
    </div>
    <div class="footer">
      <p>This is an automated message. Please do not reply to this email.</p>
      <p>&copy; {{.Year}} {{.Company}}. All rights reserved.</p>
    </div>
  </div>
</body>
</html>`))

var statusTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: {{.Color}}; color: white; padding: 30px;
              text-align: center; border-radius: 10px 10px 0 0; }
    .content { background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px; }
    .footer { text-align: center; padding: 20px; color: #999; font-size: 12px; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>{{.Subject}}</h1>
    </div>
    <div class="content">
      <p>Dear <strong>{{.FirstName}} {{.LastName}}</strong>,</p>
      <p>{{.Message}}</p>
      <p><strong>Application Number:</strong> {{.ApplicationNumber}}</p>
      <p><strong>Position:</strong> {{.Position}}</p>
      {{if .Notes}}<p><strong>Additional Notes:</strong> {{.Notes}}</p>{{end}}
      <p>Best regards,<br>{{.Company}}</p>
    </div>
    <div class="footer">
      <p>&copy; {{.Year}} {{.Company}}. All rights reserved.</p>
    </div>
  </div>
</body>
</html>`))
