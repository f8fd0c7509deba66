// Command pebble-apps serves the garage, gym, bookmarks, quiz and tennis RPC
// APIs and manages their PostgreSQL schema.
package main

import "github.com/marshallshelly/pebble-apps/cmd/pebble-apps/commands"

func main() {
	commands.Execute()
}
