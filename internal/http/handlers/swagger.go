package handlers

import "github.com/gin-gonic/gin"

const swaggerUIHTML = `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width,initial-scale=1" />
    <title>Price Arbitrage API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
    <style>
      body { margin: 0; background: #f8fafc; }
      #swagger-ui { max-width: 1200px; margin: 0 auto; }
    </style>
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: "/docs/openapi.yaml",
        dom_id: "#swagger-ui",
        deepLinking: true,
        presets: [SwaggerUIBundle.presets.apis],
        layout: "BaseLayout"
      });
    </script>
  </body>
</html>`

func SwaggerUI(ctx *gin.Context) {
	ctx.Data(200, "text/html; charset=utf-8", []byte(swaggerUIHTML))
}

const openAPIYAML = `openapi: 3.0.3
info:
  title: Price Arbitrage API
  version: "1.0"
paths:
  /api/auth/register:
    post:
      summary: Register a new account
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [email, userName, password, confirmPassword]
              properties:
                email: { type: string, format: email }
                userName: { type: string, minLength: 3, maxLength: 50 }
                password: { type: string, minLength: 8 }
                confirmPassword: { type: string }
      responses:
        "200":
          description: Account created, token issued
          content:
            application/json:
              schema: { $ref: "#/components/schemas/AuthResponse" }
        "400":
          description: Validation failure or email/username already in use
  /api/auth/login:
    post:
      summary: Authenticate with email and password
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [email, password]
              properties:
                email: { type: string, format: email }
                password: { type: string }
      responses:
        "200":
          description: Token issued
          content:
            application/json:
              schema: { $ref: "#/components/schemas/AuthResponse" }
        "401":
          description: Email or password is incorrect
  /api/auth/me:
    get:
      summary: Current user profile
      security: [{ bearerAuth: [] }]
      responses:
        "200":
          description: Profile for the token subject
        "401":
          description: Missing or invalid token
        "404":
          description: Token subject no longer exists
  /api/admin/users:
    get:
      summary: List accounts (Admin role required)
      security: [{ bearerAuth: [] }]
      parameters:
        - { name: limit, in: query, schema: { type: integer, default: 50 } }
        - { name: offset, in: query, schema: { type: integer, default: 0 } }
      responses:
        "200": { description: Page of accounts }
        "403": { description: Admin role required }
components:
  securitySchemes:
    bearerAuth:
      type: http
      scheme: bearer
      bearerFormat: JWT
  schemas:
    AuthResponse:
      type: object
      properties:
        token: { type: string }
        expiresAt: { type: string, format: date-time }
        userId: { type: string }
        email: { type: string }
        userName: { type: string }
        roles:
          type: array
          items: { type: string }
`

func OpenAPISpec(ctx *gin.Context) {
	ctx.Data(200, "application/yaml; charset=utf-8", []byte(openAPIYAML))
}
