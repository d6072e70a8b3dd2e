// Package metadata decodes the .roblox-rs custom section.
//
// The macro front-end emits one self-describing binary record per
// translation unit, each carrying the declared imports, exports, main
// functions, and allocator intrinsics of that unit. Records are simply
// concatenated in the section payload — no link-time merge step — and
// Decode catenates their lists.
package metadata
