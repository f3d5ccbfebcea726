package main

import "github.com/threadlyhq/replybot/cmd"

func main() {
	cmd.Execute()
}
