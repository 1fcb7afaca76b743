package domain

import "fmt"

// Rooms are named fan-out groups on the relay. Every authenticated
// connection sits in its personal inbox room; chat rooms are joined only
// after a membership check.

func UserRoom(id UserID) string { return fmt.Sprintf("user:%d", id) }

func ChatRoom(id ChatID) string { return fmt.Sprintf("chat:%s", id) }
