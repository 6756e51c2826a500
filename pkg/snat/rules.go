package snat

// RulesForLoopbackPorts builds the SNAT rule set for every currently-weighted
// loopback real server, so traffic routed through IPVS to 127.0.0.1:port
// gets masqueraded as it leaves toward the child process. Only ports with a
// positive weight are rewritten -- a zero-weighted real server is about to be
// drained and doesn't need a NAT path kept warm for it.
func RulesForLoopbackPorts(weightByPort map[int]int, protocol string) []SNATRule {
	var rules []SNATRule
	for port, weight := range weightByPort {
		if weight <= 0 {
			continue
		}
		rules = append(rules, SNATRule{
			BackendIP:   "127.0.0.1",
			BackendPort: uint16(port),
			Protocol:    protocol,
		})
	}
	return rules
}
