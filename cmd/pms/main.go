// Command pms samples the plant sensors and records every reading in a
// SQLite database.
package main

func main() {
	Execute()
}
