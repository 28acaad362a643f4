// Package console is the line-based operator console.
//
// Commands:
//
//	list                                   show live sessions
//	ping <id>                              round trip to one host
//	send <id|0> <action> [FLAG...] [-- payload]
//	                                       send a command, 0 broadcasts
//	kick <id|0>                            disconnect one or every host
//	help, quit
//
// Actions are "ping", "disconnect" or a numeric code of 1000 or more, which
// hosts interpret and the server forwards unchanged. Flag tokens match flag
// names by case-insensitive substring.
package console
