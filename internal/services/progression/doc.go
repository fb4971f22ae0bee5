// Package progression derives what a member can do next from the game
// graph and their raw progress: trader reputation and loyalty levels,
// hideout station levels, and which tasks are currently available.
//
// Everything here is a pure function of its inputs. Nothing blocks,
// nothing returns an error, and missing optional data takes its neutral
// value (no trader requirements means no trader gating).
package progression
