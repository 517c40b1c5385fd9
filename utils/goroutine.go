package utils

import "log"

// SafeGo runs fn in a goroutine that survives panics.
func SafeGo(fn func()) {
	go func() {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[SafeGo] panic recovered: %v", err)
			}
		}()
		fn()
	}()
}
