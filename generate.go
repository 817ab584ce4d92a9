//go:generate gomarkdoc -e -f github -o README.md . --repository.url https://github.com/agentstation/pkgfeed --repository.default-branch master --repository.path /

// Package pkgfeed watches one project on Repology and publishes detected
// package changes as an RSS 2.0 feed.
//
// A run has two stages. Check fetches the project's package list, reduces it
// to a snapshot of monitored fields, compares it against the snapshot saved by
// the previous run and writes a change-description file. Generate maps those
// changes to feed entries, merges them into the existing feed without
// duplicates, trims it to the configured size and writes it back.
//
// Example usage:
//
//	m, err := pkgfeed.New(
//	    pkgfeed.WithProject("bash"),
//	    pkgfeed.WithStateFile("state.json"),
//	    pkgfeed.WithFeedFile("bash.xml"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Close()
//
//	m.OnPackageUpdated(func(c differ.Change) {
//	    log.Printf("%s changed", c.Package)
//	})
//
//	result, err := m.Run(ctx)
//	if err != nil {
//	    log.Fatal(err) // only feed persistence fails a run
//	}
//	fmt.Println(result.Summary())
package pkgfeed
