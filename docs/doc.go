// Package docs provides generated OpenAPI documentation.
//
// Masthead API
//
//	@title			Masthead API
//	@version		1.0
//	@description	Newspaper cover detection API for IIIF manifests: sessions, analysis jobs, corrections, and structure export.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/openglam/masthead
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8090
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/masthead/serve.go -o ./swagger --parseDependency --parseInternal
