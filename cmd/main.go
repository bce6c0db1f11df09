// Command eventapi serves the event catalog HTTP API.
package main

func main() {
	Execute()
}
