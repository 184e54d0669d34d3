// Package sources talks to content sites: it searches them for candidates and,
// once a title is resolved, lists its episodes or chapters and fetches the
// pages or streams of one item.
//
// Every site is reached through a small JSON endpoint described by a
// [[sources]] configuration block. Payloads are decoded leniently because the
// sites are scraped: IDs and years may arrive as strings or numbers, and result
// lists may be bare arrays or wrapped in an object.
package sources
