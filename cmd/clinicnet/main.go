package main

import "github.com/vietddude/clinicnet/internal/cli"

func main() {
	cli.Execute()
}
