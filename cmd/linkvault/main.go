// Package main 启动应用程序
package main

import "github.com/yeisme/linkvault/pkg/cmd"

//	@title			LinkVault API
//	@version		1.0
//	@description	LinkVault 是一个链接直传文件收集服务，提供链接解析、批量上传、文件树读取与批量删除等功能。

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

//	@contact.name	yeisme
//	@contact.email	yefun2004@gmail.com.

func main() {
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}
