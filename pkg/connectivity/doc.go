// Package connectivity drives the station's association lifecycle.
//
// The Manager is a state machine fed by events from the radio stack:
//
//	Disconnected --LinkStart--> Associating --Associated--> Associated
//	Associated --AddressAcquired--> AddressAcquired
//	Associating/Associated --AssociationFailed--> Disconnected
//	Associated/AddressAcquired --Disconnected--> Disconnected
//
// Every LinkStart opens a new epoch. The device's name is published once
// per epoch, on the first AddressAcquired, and never before an address
// exists.
//
// # Reconnection Strategy
//
// After a failure the Manager schedules a LinkStart using exponential
// backoff:
//
//  1. Initial delay: 1 second
//  2. Exponential increase: 2s, 4s, 8s, 16s, 32s
//  3. Maximum delay: 60 seconds
//  4. Reset to 1s once an address is acquired
//
// with up to 25% jitter added to each delay. MaxRetries caps consecutive
// failures; zero retries forever.
package connectivity
