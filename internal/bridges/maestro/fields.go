package maestro

import "fmt"

// Field names that other parts of the package look up directly.
const (
	fieldStoveState  = "Etat du poele"
	fieldPowerActive = "Puissance Active"
)

// onOffLabels is shared by every two-state field.
var onOffLabels = map[int64]string{
	0: "Off",
	1: "On",
}

// fanLabels covers the ambient and ducted fan states.
var fanLabels = map[int64]string{
	0: "Desactive",
	1: "Niveau 1",
	2: "Niveau 2",
	3: "Niveau 3",
	4: "Niveau 4",
	5: "Niveau 5",
	6: "Automatique",
}

var stoveStateLabels = map[int64]string{
	0:  "Eteint",
	1:  "Controle du poele froid / chaud",
	2:  "Clean Froid",
	3:  "Load Froid",
	4:  "Start 1 Froid",
	5:  "Start 2 Froid",
	6:  "Clean Chaud",
	7:  "Load Chaud",
	8:  "Start 1 Chaud",
	9:  "Start 2 Chaud",
	10: "Stabilisation",
	11: "Puissance 1",
	12: "Puissance 2",
	13: "Puissance 3",
	14: "Puissance 4",
	15: "Puissance 5",
	30: "Mode diagnostique",
	31: "Marche",
	40: "Extinction",
	41: "Refroidissement en cours",
	42: "Nettoyage basse puissance",
	43: "Nettoyage haute puissance",
	44: "Debloquage vis sans fin",
	45: "AUTO ECO",
	46: "Standby",
	48: "Diagnostique",
	49: "Chargement vis sans fin",
	50: "Erreur A01 - Allumage rate",
	51: "Erreur A02 - Pas de flamme",
	52: "Erreur A03 - Surchauffe du reservoir",
	53: "Erreur A04 - Temperature des fumees trop haute",
	54: "Erreur A05 - Obstruction conduit - Vent",
	56: "Erreur A06 - Mauvais tirage",
	57: "Erreur A08 - Defaut ventilateur fumees",
	58: "Erreur A09 - Defaut sonde de fumees",
	59: "Erreur A11 - Defaut motoreducteur",
	60: "Erreur A13 - Temperature carte mere",
	61: "Erreur A14 - Defaut sonde Active",
	62: "Erreur A18 - Temperature eau trop haute",
	63: "Erreur A19 - Defaut sonde eau",
	64: "Erreur A20 - Defaut sonde ambiante",
	65: "Erreur A21 - Defaut pressostat",
	66: "Erreur A22 - Defaut sonde puffer",
	67: "Erreur A23 - Defaut fermeture brasero",
	68: "Erreur A12 - Defaut controleur moteur",
	69: "Erreur A17 - Bourrage vis sans fin",
	70: "Attente securite alarme",
}

var brazierLabels = map[int64]string{
	0:   "OK",
	1:   "Nettoyage en cours",
	100: "Brasero ouvert",
}

var regulationLabels = map[int64]string{
	0: "Manuelle",
	1: "Dynamique",
}

var powerLevelLabels = map[int64]string{
	1: "Puissance 1",
	2: "Puissance 2",
	3: "Puissance 3",
	4: "Puissance 4",
	5: "Puissance 5",
}

var valveLabels = map[int64]string{
	0: "Sanitaire",
	1: "Chauffage",
}

var pelletSensorLabels = map[int64]string{
	0:  "Sonde desactivee",
	10: "Niveau suffisant",
	11: "Niveau presque vide",
}

// infoFrameRules decodes the C|RecuperoInfo response. Index 0 carries the
// frame type and is not decoded.
var infoFrameRules = []FieldRule{
	{Index: 1, Name: fieldStoveState, Labels: stoveStateLabels},
	{Index: 2, Name: "Etat du ventilateur ambiance", Labels: fanLabels},
	{Index: 3, Name: "Etat du ventilateur canalise 1", Labels: fanLabels},
	{Index: 4, Name: "Etat du ventilateur canalise 2", Labels: fanLabels},
	{Index: 5, Name: "Temperature des fumees"},
	{Index: 6, Name: "Temperature ambiante", Transform: TransformHalved},
	{Index: 7, Name: "Puffer Temperature"},
	{Index: 8, Name: "Temperature chaudiere"},
	{Index: 9, Name: "Temperature NTC3"},
	{Index: 10, Name: "Etat de la bougie"},
	{Index: 11, Name: "ACTIVE - Set"},
	{Index: 12, Name: "RPM - Ventilateur fummees"},
	{Index: 13, Name: "RPM - Vis sans fin - SET"},
	{Index: 14, Name: "RPM - Vis sans fin - LIVE"},
	{Index: 15, Name: "Brazero", Labels: brazierLabels},
	{Index: 16, Name: "Temperature retour"},
	{Index: 17, Name: "Etat du mode Active", Labels: onOffLabels},
	{Index: 18, Name: "ACTIVE - Live"},
	{Index: 19, Name: "Mode de regulation", Labels: regulationLabels},
	{Index: 20, Name: "Mode ECO", Labels: onOffLabels},
	{Index: 21, Name: "Silence", Labels: onOffLabels},
	{Index: 22, Name: "Mode Chronotermostato", Labels: onOffLabels},
	{Index: 23, Name: "Pump_PWM"},
	{Index: 24, Name: "TEMP - Carte mere"},
	{Index: 25, Name: fieldPowerActive, Labels: powerLevelLabels},
	{Index: 26, Name: "TEMP - Consigne", Transform: TransformHalved},
	{Index: 27, Name: "3WayValve", Labels: valveLabels},
	{Index: 28, Name: "TEMP - Boiler", Transform: TransformHalved},
	{Index: 29, Name: "Antigel", Labels: onOffLabels},
	{Index: 30, Name: "Etat effets sonores", Labels: onOffLabels},
	{Index: 31, Name: "Sonde Pellets", Labels: pelletSensorLabels},
	{Index: 32, Name: "Heures avant entretien"},
	{Index: 33, Name: "Nombre d'allumages"},
	{Index: 34, Name: "Heure"},
	{Index: 35, Name: "Minute"},
	{Index: 36, Name: "Jour"},
	{Index: 37, Name: "Heures de fonctionnement total (s)", Transform: TransformDuration},
	{Index: 38, Name: "Heures de fonctionnement en Puissance 1 (s)", Transform: TransformDuration},
	{Index: 39, Name: "Heures de fonctionnement en Puissance 2 (s)", Transform: TransformDuration},
	{Index: 40, Name: "Heures de fonctionnement en Puissance 3 (s)", Transform: TransformDuration},
	{Index: 41, Name: "Heures de fonctionnement en Puissance 4 (s)", Transform: TransformDuration},
	{Index: 42, Name: "Heures de fonctionnement en Puissance 5 (s)", Transform: TransformDuration},
	{Index: 43, Name: "Mois"},
	{Index: 44, Name: "Annee"},
}

// InfoFrameRules returns a copy of the rule table for info frames.
func InfoFrameRules() []FieldRule {
	out := make([]FieldRule, len(infoFrameRules))
	copy(out, infoFrameRules)
	return out
}

// validateRules checks a rule table for duplicate indices and names.
func validateRules(rules []FieldRule) error {
	indices := make(map[int]string, len(rules))
	names := make(map[string]int, len(rules))
	for _, r := range rules {
		if r.Index < 0 {
			return fmt.Errorf("rule %q: negative index %d", r.Name, r.Index)
		}
		if r.Name == "" {
			return fmt.Errorf("rule at index %d: empty name", r.Index)
		}
		if prev, ok := indices[r.Index]; ok {
			return fmt.Errorf("index %d used by %q and %q", r.Index, prev, r.Name)
		}
		if prev, ok := names[r.Name]; ok {
			return fmt.Errorf("name %q used at indices %d and %d", r.Name, prev, r.Index)
		}
		if len(r.Labels) > 0 && r.Transform != TransformInteger {
			return fmt.Errorf("rule %q: labels cannot be combined with a transform", r.Name)
		}
		indices[r.Index] = r.Name
		names[r.Name] = r.Index
	}
	return nil
}
