// Package parser extracts function and class tags from Lua source.
//
// Scanning is line oriented: each code line is checked against the Lplus
// class idiom, then the Lplus method idiom, then a generic "function"
// heuristic. The only state carried between lines is the most recently
// declared Lplus class.
package parser
