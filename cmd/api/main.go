package main

import (
	_ "quotes_service/docs"
	"quotes_service/internal/adapter/http/routes"

	_ "github.com/joho/godotenv/autoload"
)

// @title           Quotes Service API
// @version         1.0
// @description     Quote lifecycle (draft, submit, approve, reject) with sequential QT- numbering.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080

// @BasePath  /v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	routes.Run()
}
