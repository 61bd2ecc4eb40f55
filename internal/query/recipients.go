package query

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackwilsdon/sigbak-go/internal/bkerrors"
)

// Cache is the recipient arena + lookup map described in spec §9: a
// slice owns the Recipient values (so pointers into it stay stable
// once the cache is built) and the map resolves a RecipientID to an
// index. Built once, lazily, on first access and read-only afterward.
type Cache struct {
	entries []Recipient
	index   map[RecipientID]int
}

const (
	recipientsQuery1 = `SELECT r.recipient_ids, NULL, NULL, r.system_display_name, r.system_phone_label, r.signal_profile_name, NULL, NULL, g.group_id, g.title FROM recipient_preferences AS r LEFT JOIN groups AS g ON r.recipient_ids = g.group_id`
	recipientsQuery2 = `SELECT r._id, r.phone, r.email, r.system_display_name, r.system_phone_label, r.signal_profile_name, NULL, NULL, g.group_id, g.title FROM recipient AS r LEFT JOIN groups AS g ON r._id = g.recipient_id`
	recipientsQuery3 = `SELECT r._id, r.phone, r.email, r.system_display_name, r.system_phone_label, r.signal_profile_name, r.profile_family_name, r.profile_joined_name, g.group_id, g.title FROM recipient AS r LEFT JOIN groups AS g ON r._id = g.recipient_id`
)

// BuildCache selects the recipient query variant matching userVersion
// and populates a Cache from the result, grounded on
// sbk_build_recipient_tree/sbk_get_recipient_entry.
func BuildCache(db *sql.DB, userVersion int) (*Cache, error) {
	var query string
	legacy := userVersion < VersionRecipientIDs
	switch {
	case legacy:
		query = recipientsQuery1
	case userVersion < VersionSplitProfileNames:
		query = recipientsQuery2
	default:
		query = recipientsQuery3
	}

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: recipients query: %v", bkerrors.ErrDatabase, err)
	}
	defer rows.Close()

	c := &Cache{index: make(map[RecipientID]int)}

	for rows.Next() {
		var (
			idCol                                                                        sql.NullString
			idInt                                                                        int64
			phone, email, sysDisplay, sysPhoneLabel                                      sql.NullString
			profileName, profileFamilyName, profileJoinedName                            sql.NullString
			groupID, groupTitle                                                          sql.NullString
		)

		var scanErr error
		if legacy {
			scanErr = rows.Scan(&idCol, &phone, &email, &sysDisplay, &sysPhoneLabel,
				&profileName, &profileFamilyName, &profileJoinedName, &groupID, &groupTitle)
		} else {
			scanErr = rows.Scan(&idInt, &phone, &email, &sysDisplay, &sysPhoneLabel,
				&profileName, &profileFamilyName, &profileJoinedName, &groupID, &groupTitle)
		}
		if scanErr != nil {
			return nil, fmt.Errorf("%w: scan recipient row: %v", bkerrors.ErrDatabase, scanErr)
		}

		var id RecipientID
		if legacy {
			if !idCol.Valid {
				return nil, fmt.Errorf("%w: recipient: missing legacy id", bkerrors.ErrFormat)
			}
			id = RecipientID{Legacy: true, Old: idCol.String}
		} else {
			id = RecipientID{New: idInt}
		}

		r := Recipient{ID: id}
		if !groupID.Valid {
			r.Kind = RecipientContact
			con := &Contact{
				SystemDisplayName: nullString(sysDisplay),
				SystemPhoneLabel:  nullString(sysPhoneLabel),
				ProfileName:       nullString(profileName),
				ProfileFamilyName: nullString(profileFamilyName),
				ProfileJoinedName: nullString(profileJoinedName),
			}
			if legacy {
				if strings.Contains(idCol.String, "@") {
					email := idCol.String
					con.Email = &email
				} else {
					phone := idCol.String
					con.Phone = &phone
				}
			} else {
				con.Phone = nullString(phone)
				con.Email = nullString(email)
			}
			r.Contact = con
		} else {
			r.Kind = RecipientGroup
			r.Group = &Group{Name: nullString(groupTitle), GroupID: nullString(groupID)}
		}

		c.entries = append(c.entries, r)
		c.index[id] = len(c.entries) - 1
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate recipients: %v", bkerrors.ErrDatabase, err)
	}

	return c, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// Lookup resolves id to its cached Recipient. A miss is a hard
// lookup error, matching spec.md's "lookup failure surfaces an error"
// (sbk_get_recipient: "Cannot find recipient").
func (c *Cache) Lookup(id RecipientID) (*Recipient, error) {
	idx, ok := c.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: recipient %+v not found", bkerrors.ErrLookup, id)
	}
	return &c.entries[idx], nil
}

// DisplayName implements sbk_get_recipient_display_name: for a
// contact, the first non-nil of system display name, joined profile
// name, profile name, phone, email; for a group, its name; "Unknown"
// otherwise.
func DisplayName(r *Recipient) string {
	switch r.Kind {
	case RecipientContact:
		c := r.Contact
		for _, v := range []*string{c.SystemDisplayName, c.ProfileJoinedName, c.ProfileName, c.Phone, c.Email} {
			if v != nil {
				return *v
			}
		}
	case RecipientGroup:
		if r.Group.Name != nil {
			return *r.Group.Name
		}
	}
	return "Unknown"
}

// recipientIDFromLegacyColumn builds a RecipientID from a pre-24
// schema's string column (the sms/mms `address` column, the mention
// table's recipient column, etc.) matching
// sbk_get_recipient_id_from_column's legacy branch.
func recipientIDFromLegacyColumn(s string) RecipientID {
	return RecipientID{Legacy: true, Old: s}
}

// recipientIDFromIntColumn builds a RecipientID from a post-24
// schema's integer column.
func recipientIDFromIntColumn(v int64) RecipientID {
	return RecipientID{New: v}
}
