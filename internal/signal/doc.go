// Package signal holds the stateless numeric helpers and small filters shared
// by the controller, the simulator and the identification code.
package signal
