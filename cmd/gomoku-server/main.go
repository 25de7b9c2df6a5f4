package main

import "github.com/wcfdehao/gomoku/server"

func main() {
	server.Main()
}
