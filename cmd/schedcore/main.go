// Command schedcore serves recurring schedules over HTTP and inspects them
// from the command line.
package main

func main() {
	Execute()
}
