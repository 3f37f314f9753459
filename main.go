package main

import "github.com/nvduc/joomprobe-cli/cmd"

func main() {
	cmd.Execute()
}
