package notifier

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"arcop/internal/domain"
	"arcop/internal/rut"
)

const confirmationTemplate = `<html><body>
<h2>Solicitud de Acceso a Datos Personales</h2>
<p>Hemos recibido su solicitud. Estos son los datos registrados:</p>
<ul>
<li><strong>Número de solicitud:</strong> {{.Number}}</li>
<li><strong>RUT:</strong> {{.RUT}}</li>
<li><strong>Correo:</strong> {{.Email}}</li>
<li><strong>Formato de entrega:</strong> {{.Format}}</li>
</ul>
<p>Para continuar, valide su identidad haciendo clic en el siguiente enlace:</p>
<p><a href="{{.ValidationURL}}">Validar mi identidad</a></p>
<p><strong>Importante:</strong> el enlace expira en {{.TokenTTLMinutes}} minutos.
Si expira, deberá ingresar una nueva solicitud.</p>
<p>Guarde el número de solicitud para consultar su estado.</p>
<hr>
<p>{{.CompanyName}} · Delegado de Protección de Datos: {{.DPOEmail}}</p>
</body></html>`

const identityConfirmedTemplate = `<html><body>
<h2>Identidad Validada</h2>
<p>Su identidad fue validada correctamente para la solicitud
<strong>{{.Number}}</strong>.</p>
<p>Su solicitud será respondida a más tardar el
<strong>{{.Deadline}}</strong> ({{.ResponseDays}} días hábiles desde el ingreso).</p>
<p>Le notificaremos a este correo cuando su información esté disponible.</p>
<hr>
<p>{{.CompanyName}} · Delegado de Protección de Datos: {{.DPOEmail}}</p>
</body></html>`

const dataReadyTemplate = `<html><body>
<h2>Su información está lista</h2>
<p>La respuesta a su solicitud <strong>{{.Number}}</strong> ya se encuentra
disponible en formato {{.Format}}.</p>
<p><a href="{{.DownloadURL}}">Descargar mi información</a></p>
<p><strong>Importante:</strong> el enlace de descarga estará disponible por
{{.DownloadTTLHours}} horas.</p>
<hr>
<p>{{.CompanyName}} · Delegado de Protección de Datos: {{.DPOEmail}}</p>
</body></html>`

type templateData struct {
	Number           string
	RUT              string
	Email            string
	Format           string
	ValidationURL    string
	DownloadURL      string
	Deadline         string
	ResponseDays     int
	TokenTTLMinutes  int
	DownloadTTLHours int
	CompanyName      string
	DPOEmail         string
}

// Renderer turns a request into a ready-to-send subject and HTML body.
type Renderer struct {
	settings     Settings
	confirmation *template.Template
	validated    *template.Template
	dataReady    *template.Template
}

func NewRenderer(settings Settings) *Renderer {
	return &Renderer{
		settings:     settings,
		confirmation: template.Must(template.New("confirmation").Parse(confirmationTemplate)),
		validated:    template.Must(template.New("validated").Parse(identityConfirmedTemplate)),
		dataReady:    template.Must(template.New("dataReady").Parse(dataReadyTemplate)),
	}
}

func (r *Renderer) data(req domain.Request) templateData {
	return templateData{
		Number:           req.Number,
		RUT:              rut.Format(req.RUT),
		Email:            req.Email,
		Format:           string(req.Format),
		ValidationURL:    fmt.Sprintf("%s/validar/%s", strings.TrimRight(r.settings.BaseURL, "/"), req.ValidationToken),
		DownloadURL:      req.DownloadURL,
		Deadline:         req.ResponseDeadline.Format("02-01-2006"),
		ResponseDays:     r.settings.ResponseDays,
		TokenTTLMinutes:  r.settings.TokenTTLMinutes,
		DownloadTTLHours: r.settings.DownloadTTLHours,
		CompanyName:      r.settings.CompanyName,
		DPOEmail:         r.settings.DPOEmail,
	}
}

func (r *Renderer) Confirmation(req domain.Request) (subject, body string, err error) {
	return r.render(r.confirmation, "Confirmación de Solicitud de Acceso - "+req.Number, req)
}

func (r *Renderer) IdentityConfirmed(req domain.Request) (subject, body string, err error) {
	return r.render(r.validated, "Identidad Validada - "+req.Number, req)
}

func (r *Renderer) DataReady(req domain.Request) (subject, body string, err error) {
	return r.render(r.dataReady, "Su información está lista - "+req.Number, req)
}

func (r *Renderer) render(tmpl *template.Template, subject string, req domain.Request) (string, string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, r.data(req)); err != nil {
		return "", "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return subject, buf.String(), nil
}
