package main

// General API documentation for swaggo. Regenerate internal/docs with:
//
//	swag init -g cmd/wromgpt/docs.go -o internal/docs --outputTypes go
//
// @title           WromGPT API
// @version         1.0.0
// @description     GPT model with instruction injection capabilities
//
// @contact.name   wromgpt maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
