package server

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var instagramPage = template.Must(template.ParseFS(templateFS, "templates/instagram.html"))
