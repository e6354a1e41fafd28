package main

import (
	"github.com/duyjimmypham/pepdesign/cmd"
)

func main() {
	cmd.Execute() // initialize cobra commands
}
