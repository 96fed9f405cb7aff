// Package wol builds and broadcasts wake-on-LAN magic packets.
//
// A magic packet is 102 bytes: six 0xFF bytes followed by the target MAC
// address repeated 16 times. It is sent once, as a single UDP datagram to the
// limited broadcast address 255.255.255.255 on port 7, plus one copy per
// extra target when configured. Delivery is never
// confirmed and nothing is retried; callers that want another attempt call
// Wake again.
package wol
