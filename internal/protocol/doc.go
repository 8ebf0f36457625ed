// Package protocol parses liquid-handling protocol documents and binds
// them to a robot. A document declares labware, pipettes and an ordered
// list of transfer steps; it maps 1:1 onto the planning contract, with
// no scripting surface of its own.
package protocol
