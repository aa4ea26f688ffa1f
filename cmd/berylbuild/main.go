package main

import "github.com/beryl-lang/berylbuild/cmd/berylbuild/internal"

func main() {
	internal.Execute()
}
