// Package configs 管理应用程序配置，包括版本信息.
package configs

// AppVersion 应用程序版本，可在构建时通过 -ldflags 注入.
var AppVersion = "dev"
