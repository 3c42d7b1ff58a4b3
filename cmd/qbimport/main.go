// Command qbimport imports question bank files from the command line.
package main

func main() {
	Execute()
}
