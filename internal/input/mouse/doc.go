// Package mouse provides mouse button and position types for captured input.
//
// Only the three physical buttons a macro can click are modeled:
//
//	mouse.ButtonLeft, mouse.ButtonRight, mouse.ButtonMiddle
//
// Button names round-trip through String and ParseButton using the lowercase
// names stored in macro files ("left", "right", "middle").
package mouse
