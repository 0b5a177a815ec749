// Command emicagent validates generated EMIC SDK artifacts and drives the
// compile-repair loop against the project's toolchain.
package main

func main() {
	Execute()
}
