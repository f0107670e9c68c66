// Command easel draws on a canvas with head movement, inking while the mouth is open.
package main

func main() {
	Execute()
}
