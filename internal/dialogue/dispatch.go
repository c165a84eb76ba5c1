package dialogue

import (
	"context"
	"log/slog"

	"github.com/MrWong99/haulvoice/internal/catalog"
	"github.com/MrWong99/haulvoice/internal/entities"
	"github.com/MrWong99/haulvoice/internal/handoff"
)

// dispatch performs the single action bound to id.
func (c *Controller) dispatch(ctx context.Context, id catalog.Intent, bag entities.Bag) {
	switch id {
	case catalog.AddTruck:
		c.say("Opening the add truck form.")
		c.openForm(ctx, id, bag)
	case catalog.AddDelivery:
		c.say("Opening the add delivery form.")
		c.openForm(ctx, id, bag)
	case catalog.GoHome:
		c.navigate("Navigating to home page.", RouteHome)
	case catalog.GoDashboard:
		switch c.collab.Preferences.Role() {
		case "transporter":
			c.navigate("Opening your dashboard.", RouteTransporterDashboard)
		case "shipper":
			c.navigate("Opening your dashboard.", RouteShipperDashboard)
		default:
			c.show(LevelWarning, loginMessage)
		}
	case catalog.MyLorries:
		c.navigate("Showing your lorries.", RouteMyLorries)
	case catalog.MyDeliveries:
		c.navigate("Showing your deliveries.", RouteMyDeliveries)
	case catalog.GoProfile:
		c.navigate("Opening your profile.", RouteProfile)
	case catalog.ChangeLanguage:
		if bag.Language == "" {
			c.show(LevelInfo, askLanguageMessage)
			return
		}
		c.session.Language = bag.Language
		c.collab.Preferences.SetLanguage(bag.Language)
		c.show(LevelSuccess, languageChangedMessage(bag.Language))
	case catalog.Help:
		c.showHelp()
	case catalog.SubmitForm:
		c.autoSubmit()
	default:
		c.show(LevelWarning, noDispatchMessage)
	}
}

func (c *Controller) navigate(spoken, path string) {
	c.say(spoken)
	c.collab.Navigator.Navigate(path)
}

// openForm fills the form for id when it is on the page. Otherwise the
// command is parked in the hand-off slot and the client is sent to the
// form's page.
func (c *Controller) openForm(ctx context.Context, id catalog.Intent, bag entities.Bag) {
	form := formFor(id)
	if c.collab.Forms.Presented(form) {
		c.fill(form, bag)
		return
	}
	if c.collab.Handoff != nil {
		c.saveHandoff(ctx, handoff.Payload{Intent: id, Entities: bag, CreatedAt: c.now()})
	}
	c.collab.Navigator.Navigate(routeFor(id))
}

func (c *Controller) saveHandoff(ctx context.Context, p handoff.Payload) {
	data, err := handoff.Encode(p)
	if err == nil {
		err = c.collab.Handoff.Save(ctx, c.session.ID, data)
	}
	if err != nil {
		slog.Warn("dialogue: hand-off save failed", "session_id", c.session.ID, "intent", p.Intent, "error", err)
		c.metrics.RecordHandoff(ctx, "save", "error")
		return
	}
	c.metrics.RecordHandoff(ctx, "save", "ok")
}

// fill copies entities into form and reports the result.
func (c *Controller) fill(form string, bag entities.Bag) {
	filled := 0
	for _, f := range formFields(form, bag) {
		if c.collab.Forms.SetField(form, f.name, f.value) {
			filled++
		}
	}
	missing := len(c.collab.Forms.EmptyRequired(form))
	level := LevelSuccess
	if filled == 0 {
		level = LevelInfo
	}
	c.show(level, fillMessage(filled, missing))
}

func (c *Controller) autoSubmit() {
	form := ""
	switch {
	case c.collab.Forms.Presented(FormTruck):
		form = FormTruck
	case c.collab.Forms.Presented(FormDelivery):
		form = FormDelivery
	default:
		c.show(LevelWarning, noFormMessage)
		return
	}
	if missing := len(c.collab.Forms.EmptyRequired(form)); missing > 0 {
		c.show(LevelWarning, cannotSubmitMessage(missing))
		return
	}
	c.say(confirmSubmitPrompt)
	c.collab.Confirmer.Confirm(confirmSubmitPrompt, func(ok bool) {
		if !ok {
			c.show(LevelInfo, cancelledMessage)
			return
		}
		if !c.collab.Forms.Presented(form) {
			c.show(LevelWarning, noFormMessage)
			return
		}
		c.collab.Forms.Submit(form)
		c.show(LevelInfo, submittingMessage)
	})
}

// showHelp lists every command except help itself. Commands that need a
// form go last so the spoken top three are usable from any page.
func (c *Controller) showHelp() {
	var always, gated []catalog.Command
	for _, cmd := range c.matcher.Catalog().All() {
		switch {
		case cmd.ID == catalog.Help:
		case cmd.RequiresForm:
			gated = append(gated, cmd)
		default:
			always = append(always, cmd)
		}
	}
	cmds := append(always, gated...)
	c.collab.Display.Help(cmds)
	c.say(helpMessage(cmds).Spoken)
}

type fieldValue struct{ name, value string }

// formFields maps entities onto the input names of form, in fill order.
func formFields(form string, bag entities.Bag) []fieldValue {
	fields := bag.Fields()
	var out []fieldValue
	add := func(field, entity string) {
		if v, ok := fields[entity]; ok {
			out = append(out, fieldValue{field, v})
		}
	}
	switch form {
	case FormTruck:
		add("vehicleNumber", "vehicleNumber")
		add("vehicleType", "vehicleType")
		add("capacity", "capacity")
		add("location", "location")
		add("contact", "contact")
	case FormDelivery:
		add("goodsType", "goodsType")
		add("weight", "weight")
		add("pickupLocation", "location")
		add("dropLocation", "dropLocation")
		add("contact", "contact")
		if bag.Date != "" {
			out = append(out, fieldValue{"pickupDateTime", bag.Date + "T12:00"})
		}
	}
	return out
}

func formFor(id catalog.Intent) string {
	switch id {
	case catalog.AddTruck:
		return FormTruck
	case catalog.AddDelivery:
		return FormDelivery
	}
	return ""
}

func routeFor(id catalog.Intent) string {
	switch id {
	case catalog.AddTruck:
		return RouteAddTruck
	case catalog.AddDelivery:
		return RouteAddDelivery
	}
	return ""
}
