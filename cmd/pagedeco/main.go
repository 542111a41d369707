// Command pagedeco decorates authored pages from the command line.
package main

func main() {
	Execute()
}
