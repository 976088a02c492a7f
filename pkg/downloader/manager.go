package downloader

// Defaults returns every built-in mechanism keyed by name.
func Defaults() map[string]Mechanism {
	m := make(map[string]Mechanism)
	for _, mech := range []Mechanism{
		NewHTTPLib(),
		NewFTPLib(),
		NewWget(),
		NewCurl(),
		NewLynx(),
		NewNcFTP(),
		NewFTP(),
		NewRsync(),
	} {
		m[mech.Name()] = mech
	}
	return m
}
