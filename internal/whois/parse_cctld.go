package whois

import "strings"

// parsePL handles NASK (.pl). Keys are mixed case, nameservers continue on
// indented lines and the REGISTRAR block is free text: name first, then
// address lines, phone and e-mail.
func parsePL(text string, a *Analysis) {
	section := ""
	registrarLine := 0

	for _, line := range lines(text) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			section = ""
			continue
		}

		if section == "registrar" {
			registrarLine++
			switch {
			case registrarLine == 1:
				a.Registrar = trimmed
			case strings.HasPrefix(trimmed, "+"):
				a.RegistrarPhone = trimmed
			case strings.Contains(trimmed, "@"):
				a.RegistrarEmail = trimmed
			case strings.HasPrefix(strings.ToLower(trimmed), "www.") || looksLikeURL(trimmed):
				a.RegistrarURL = trimmed
			default:
				a.RegistrarAddress = appendLine(a.RegistrarAddress, trimmed)
			}
			continue
		}

		if section == "nameservers" && isIndented(line) {
			if _, _, ok := splitKV(trimmed); !ok || strings.Contains(trimmed, "[") {
				a.addNameServer(trimmed)
				continue
			}
		}

		key, value, ok := splitKV(trimmed)
		if !ok {
			continue
		}
		section = ""
		switch strings.ToLower(key) {
		case "domain name":
			a.DomainName = value
		case "registrar":
			section = "registrar"
			registrarLine = 0
		case "nameservers":
			section = "nameservers"
			a.addNameServer(value)
		case "created":
			a.setCreated(value)
		case "last modified":
			a.setUpdated(value)
		case "renewal date":
			a.setExpiry(value)
		case "dnssec":
			a.DnsSec = value
		}
	}
}

// parseDE handles DENIC (.de) "-T dn,ace" output: flat Key: value pairs
// followed by bracketed contact sections.
func parseDE(text string, a *Analysis) {
	section := ""
	for _, line := range lines(text) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isComment(trimmed) {
			continue
		}
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			section = strings.ToLower(strings.Trim(trimmed, "[]"))
			continue
		}
		key, value, ok := splitKV(trimmed)
		if !ok {
			continue
		}
		lkey := strings.ToLower(key)

		if section == "holder" {
			switch lkey {
			case "name":
				a.Registrant = value
			case "organisation", "organization":
				a.RegistrantOrganization = value
			case "address", "postalcode", "city":
				a.RegistrantAddress = appendLine(a.RegistrantAddress, value)
			case "countrycode":
				a.RegistrantCountry = value
			case "email":
				a.RegistrantEmail = value
			}
			continue
		}
		if section != "" {
			// Tech-C, Zone-C and Admin-C are not the registrant
			continue
		}

		switch lkey {
		case "domain":
			a.DomainName = value
		case "nserver":
			a.addNameServer(value)
		case "status":
			a.addStatus(value)
		case "changed":
			a.setUpdated(value)
		case "dnskey":
			a.DnsSec = "signedDelegation"
		}
	}
	if a.DnsSec == "" && a.DomainName != "" {
		a.DnsSec = "unsigned"
	}
}

// parseCZ handles CZ.NIC (.cz). The response is a set of paragraphs
// introduced by domain:, contact:, nsset: or keyset:. The domain paragraph
// names the registrant by handle; the contact paragraph carrying that
// handle supplies the registrant details.
func parseCZ(text string, a *Analysis) {
	type paragraph struct {
		kind   string
		id     string
		fields [][2]string
	}

	var paragraphs []*paragraph
	var cur *paragraph
	for _, line := range lines(text) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isComment(trimmed) {
			cur = nil
			continue
		}
		key, value, ok := splitKV(trimmed)
		if !ok {
			continue
		}
		key = strings.ToLower(key)
		if cur == nil {
			cur = &paragraph{kind: key, id: value}
			paragraphs = append(paragraphs, cur)
		}
		cur.fields = append(cur.fields, [2]string{key, value})
	}

	var registrantID, nssetID string
	for _, p := range paragraphs {
		if p.kind != "domain" {
			continue
		}
		for _, f := range p.fields {
			key, value := f[0], f[1]
			switch key {
			case "domain":
				a.DomainName = value
			case "registrant":
				registrantID = value
			case "nsset":
				nssetID = value
			case "keyset":
				a.DnsSec = "signedDelegation"
			case "registrar":
				a.Registrar = value
			case "status":
				a.addStatus(value)
			case "registered":
				a.setCreated(value)
			case "changed":
				a.setUpdated(value)
			case "expire":
				a.setExpiry(value)
			}
		}
		break
	}

	for _, p := range paragraphs {
		switch {
		case p.kind == "contact" && registrantID != "" && p.id == registrantID:
			var address []string
			for _, f := range p.fields {
				switch f[0] {
				case "org":
					a.RegistrantOrganization = f[1]
				case "name":
					a.Registrant = f[1]
				case "address":
					address = append(address, f[1])
				case "e-mail", "email":
					a.RegistrantEmail = f[1]
				}
			}
			if n := len(address); n > 0 {
				if last := address[n-1]; len(last) == 2 {
					a.RegistrantCountry = last
					address = address[:n-1]
				}
				a.RegistrantAddress = strings.Join(address, ", ")
			}
		case p.kind == "nsset" && (nssetID == "" || p.id == nssetID):
			for _, f := range p.fields {
				if f[0] == "nserver" {
					a.addNameServer(f[1])
				}
			}
		}
	}
	if a.DnsSec == "" && a.DomainName != "" {
		a.DnsSec = "unsigned"
	}
}

// parseBE handles DNS Belgium (.be): top-level Key: value lines plus
// headed sections whose entries are tab-indented.
func parseBE(text string, a *Analysis) {
	section := ""
	for _, line := range lines(text) {
		if strings.TrimSpace(line) == "" || isComment(line) {
			continue
		}
		trimmed := strings.TrimSpace(line)

		if !isIndented(line) {
			key, value, ok := splitKV(trimmed)
			if !ok {
				section = ""
				continue
			}
			if value == "" {
				section = strings.ToLower(key)
				continue
			}
			section = ""
			switch strings.ToLower(key) {
			case "domain":
				a.DomainName = value
			case "status":
				a.addStatus(value)
			case "registered":
				a.setCreated(value)
			}
			continue
		}

		key, value, hasKey := splitKV(trimmed)
		switch section {
		case "registrar":
			if !hasKey {
				continue
			}
			switch strings.ToLower(key) {
			case "name":
				a.Registrar = value
			case "website":
				a.RegistrarURL = value
			}
		case "registrant":
			if hasKey {
				switch strings.ToLower(key) {
				case "name":
					a.Registrant = value
				case "organisation":
					a.RegistrantOrganization = value
				case "email":
					a.RegistrantEmail = value
				}
				continue
			}
			if a.Registrant == "" {
				a.Registrant = trimmed
			}
		case "nameservers":
			a.addNameServer(trimmed)
		case "keys":
			a.DnsSec = "signedDelegation"
		case "flags":
			a.addStatus(trimmed)
		}
	}
	if a.DnsSec == "" && a.DomainName != "" {
		a.DnsSec = "unsigned"
	}
}

// parseCoUK handles Nominet (.uk). Each heading line ends with a colon and
// the indented lines beneath it are its values.
func parseCoUK(text string, a *Analysis) {
	heading := ""
	for _, line := range lines(text) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "WHOIS lookup made") || strings.HasPrefix(trimmed, "--") {
			break
		}
		if strings.HasSuffix(trimmed, ":") {
			heading = strings.ToLower(strings.TrimSuffix(trimmed, ":"))
			continue
		}

		switch heading {
		case "domain name":
			a.DomainName = trimmed
		case "registrant":
			a.Registrant = trimmed
		case "registrant's address":
			a.RegistrantAddress = appendLine(a.RegistrantAddress, trimmed)
		case "registrar":
			if key, value, ok := splitKV(trimmed); ok && strings.EqualFold(key, "URL") {
				a.RegistrarURL = value
				continue
			}
			if a.Registrar == "" {
				name := trimmed
				if i := strings.Index(name, " [Tag = "); i >= 0 {
					a.RegistrarLicense = strings.TrimSuffix(name[i+len(" [Tag = "):], "]")
					name = name[:i]
				}
				a.Registrar = name
			}
		case "relevant dates":
			key, value, ok := splitKV(trimmed)
			if !ok {
				continue
			}
			switch strings.ToLower(key) {
			case "registered on":
				a.setCreated(value)
			case "expiry date":
				a.setExpiry(value)
			case "last updated":
				a.setUpdated(value)
			}
		case "registration status":
			a.addStatus(trimmed)
		case "name servers":
			if !strings.HasPrefix(strings.ToLower(trimmed), "no name servers") {
				a.addNameServer(trimmed)
			}
		case "dnssec":
			a.DnsSec = trimmed
		}
	}
}
