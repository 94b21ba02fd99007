package main

import "github.com/khanhnv2901/domaincheck/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
