// Package discover implements the one-shot scan that lists nearby BLE devices with
// their signal strength and estimated distance, to help pick a target address.
package discover
