// Package stow builds and reads single-file archives.
//
// An archive is one file holding an optional executable stub, an index of
// entries, the entries' stored bytes and a trailer with a digest over the
// index and content. Each entry records its own compression, so archives
// amended over time may mix strategies.
//
// This package is a thin facade over [core] that wires configuration
// loading, the plugin registry and the builder together. Use the [core]
// subpackage directly for finer control.
//
// # Quick Start
//
// Build the archive described by a configuration file:
//
//	cfg, err := stow.LoadConfig("stow.yml")
//	if err != nil {
//	    return err
//	}
//	res, err := stow.Build(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Path, res.Checksum)
//
// Read files back:
//
//	archive, err := stow.Open(res.Path)
//	if err != nil {
//	    return err
//	}
//	defer archive.Close()
//	content, err := archive.ReadFile("src/main.php")
//
// Archives served over HTTP are read with range requests, fetching only the
// index up front:
//
//	archive, err := stow.OpenURL(ctx, "https://example.com/app.stow")
//
// # Plugins
//
// The configuration's plugins list is resolved against a [plugin.Registry];
// [plugin.Default] knows "replace" and "envsubst". Supply another registry
// with [WithRegistry].
package stow
