package main

import "courtboard/cmd/courtctl/arg"

func main() {
	arg.Execute()
}
