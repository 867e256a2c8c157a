package kernel

// ResetForTest forgets the global heap so a test can boot again.
func ResetForTest() {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.heap = nil
}

// ApplyEnvForTest exposes applyEnv with an injected lookup.
var ApplyEnvForTest = applyEnv
