// Package tedpkg handles TED daily packages: finding the package id for a
// publication day, downloading it (optionally through a disk cache) and
// streaming the XML notices out of the gzip tar
//
// Design choices:
// - Packages are never fully buffered. The tar stream is walked member by
//   member and only XML members are read into memory, one at a time.
// - Issue ids are probed with HEAD requests; the day match on the advertised
//   filename is a heuristic and is logged as such.
// - Raw directories flatten member paths so an archive cannot write outside
//   its issue folder.
package tedpkg
