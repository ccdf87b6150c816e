package drumengine

import "os"

// loadBundleFile stat's path before reading it so an oversized file is
// rejected without ever being pulled fully into memory.
func loadBundleFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, newError(KindNotFound, "loadBundleFile", err)
	}
	if info.Size() > maxBundleFileSize {
		return nil, newError(KindOutOfMemory, "loadBundleFile", nil)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(KindNotFound, "loadBundleFile", err)
	}
	return b, nil
}
