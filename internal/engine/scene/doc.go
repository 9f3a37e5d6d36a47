// Package scene holds the object model edited by the engine.
//
// A Scene is an ordered list of Objects on a Canvas. Objects carry a flat
// property map (left, top, width, height, scaleX, angle, fill, ...) and a
// cached bounding box that SetCoords recomputes after edits. Groups own
// their children, whose positions are relative to the group center.
//
// Scene implements history.Resolver: commands keep an object id and look
// the object up when applied, so removing an object from the scene makes
// pending commands for it inert.
//
// Documents are read and written as YAML with Decode and Encode; single
// objects serialize to JSON with MarshalJSON and UnmarshalObject.
package scene
