/*
Copyright 2023 Markus Papenbrock
*/
package main

import "github.com/mpapenbr/redlight-race-go/cmd"

func main() {
	cmd.Execute()
}
