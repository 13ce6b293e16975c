package main

import "github.com/ValentinKolb/h5tree/cmd"

func main() {
	cmd.Execute()
}
