// Command oncecache inspects and seeds a Redis-backed oncecache namespace.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
