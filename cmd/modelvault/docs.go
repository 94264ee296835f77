package main

// General API documentation for swaggo. Run `swag init -g cmd/modelvault/main.go`
// to regenerate docs.
//
// @title           modelvault API
// @version         1.0
// @description     HTTP API for routed local model inference with streaming and health telemetry.
//
// @BasePath  /
//
// @schemes http
