// Command incrementum-demo drives one incremental build using the
// incrementum engine against a directory of text files.
package main

import "incrementum/internal/democmd"

func main() {
	democmd.Execute()
}
