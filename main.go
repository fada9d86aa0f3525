package main

import "github.com/jjenkins/orgadmin/cmd"

func main() {
	cmd.Execute()
}
