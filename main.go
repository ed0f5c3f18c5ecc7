package main

import "github.com/tixvn/ms-go-payments/cmd"

func main() {
	cmd.Execute()
}
