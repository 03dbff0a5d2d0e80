package toggler

// resetForTest drops the live scheduler so each test starts uninitialized.
func resetForTest() {
	instance.Store(nil)
}
