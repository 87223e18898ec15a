package notify

const loginTemplate = `{{define "login"}}<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <p>Hello {{.Name}},</p>
  <p>Your {{.AppName}} account was just used to sign in.</p>
  <table>
    <tr><td>Time</td><td>{{.At}}</td></tr>
    {{if .IP}}<tr><td>IP address</td><td>{{.IP}}</td></tr>{{end}}
    {{if .UserAgent}}<tr><td>Device</td><td>{{.UserAgent}}</td></tr>{{end}}
  </table>
  <p>If this was not you, reset your password right away.</p>
</body>
</html>{{end}}`

type loginData struct {
	AppName   string
	Name      string
	At        string
	IP        string
	UserAgent string
}
