package generator

import (
	"fmt"

	"writeflow/internal/domain"
	"writeflow/internal/quality"
)

// referenceSuggestions holds real, widely known sources suggested when a
// References section has to be synthesized.
var referenceSuggestions = map[quality.TopicClass][]string{
	quality.TopicPython: {
		"Python Software Foundation. (n.d.). *Python documentation*. https://docs.python.org/3/",
		"van Rossum, G., Warsaw, B., & Coghlan, N. (2001). *PEP 8 - Style Guide for Python Code*. https://peps.python.org/pep-0008/",
		"Sweigart, A. (2019). *Automate the Boring Stuff with Python* (2nd ed.). No Starch Press.",
		"Matthes, E. (2019). *Python Crash Course* (2nd ed.). No Starch Press.",
	},
	quality.TopicMachineLearning: {
		"Bishop, C. M. (2006). *Pattern Recognition and Machine Learning*. Springer.",
		"Goodfellow, I., Bengio, Y., & Courville, A. (2016). *Deep Learning*. MIT Press.",
		"Murphy, K. P. (2012). *Machine Learning: A Probabilistic Perspective*. MIT Press.",
	},
	quality.TopicGeneric: {
		"Add your course-approved sources here (textbook, lecture notes, and peer-reviewed articles).",
	},
}

func referencesFor(class quality.TopicClass) []string {
	if refs, ok := referenceSuggestions[class]; ok {
		return refs
	}
	return referenceSuggestions[quality.TopicGeneric]
}

// sectionTitlesByClass lists the Main Body section plan per topic class.
var sectionTitlesByClass = map[quality.TopicClass][]string{
	quality.TopicPython: {
		"Definition and Purpose",
		"Why Python Is Popular",
		"Core Building Blocks (Syntax)",
		"Data Types and Data Structures",
		"Control Flow and Functions",
		"Libraries, Use Cases, and Best Practices",
	},
	quality.TopicMachineLearning: {
		"Definition and Goal",
		"How Learning from Data Works",
		"Types of Machine Learning",
		"Applications",
		"Limitations and Risks",
	},
	quality.TopicGeneric: {
		"Definition",
		"Background",
		"Core Concepts",
		"Applications",
		"Challenges and Limitations",
	},
}

// sectionDefaults are the synthesized Abstract, Introduction, and Conclusion
// texts used when a model response is missing a core section.
type sectionDefaults struct {
	Class        quality.TopicClass
	Abstract     string
	Introduction string
	Conclusion   string
}

func defaultsFor(p domain.Payload) sectionDefaults {
	class := quality.ClassifyTopic(p.Topic)
	topic := p.Topic
	if topic == "" {
		topic = "Assignment"
	}
	subject := p.Subject
	if subject == "" {
		subject = "the subject"
	}

	d := sectionDefaults{Class: class}
	if p.Language == "Urdu" {
		switch class {
		case quality.TopicPython:
			d.Abstract = fmt.Sprintf("%s میں پائتھن کو ایک اعلیٰ سطحی پروگرامنگ زبان کے طور پر بیان کیا گیا ہے جو %s میں وسیع پیمانے پر استعمال ہوتی ہے۔ اس میں بنیادی تصورات (جیسے نحو، ڈیٹا ٹائپس، کنٹرول فلو، اور فنکشنز) کا خلاصہ دیا گیا ہے اور یہ دکھایا گیا ہے کہ یہ تصورات سادہ پروگراموں میں کیسے نظر آتے ہیں۔ آخر میں اہم احتیاطی نکات اور اچھی مشقوں کا ذکر کیا گیا ہے۔", topic, subject)
			d.Introduction = fmt.Sprintf("پائتھن اس لیے پڑھائی جاتی ہے کہ یہ قابلِ فہم، لچک دار، اور لائبریریوں کے بڑے ذخیرے کے ساتھ دستیاب ہے۔ %s میں اسے آٹومیشن، ڈیٹا اینالیسس، ویب ڈویلپمنٹ، اور تعلیم کے لیے استعمال کیا جاتا ہے۔ یہ تحریر پہلے واضح تعریف پیش کرتی ہے، پھر بنیادی حصوں کی وضاحت کرتی ہے اور دکھاتی ہے کہ ابتدائی سیکھنے والے انہیں چھوٹے اور قابلِ جانچ پروگراموں میں کیسے استعمال کرتے ہیں۔", subject)
			d.Conclusion = "آخر میں، پائتھن پروگرامنگ شروع کرنے کے لیے ایک عملی زبان ہے کیونکہ یہ قابلِ فہم اور وسیع پیمانے پر استعمال ہوتی ہے۔ مضبوط بنیادیات، یعنی ڈیٹا ٹائپس، کنٹرول فلو، فنکشنز، اور لائبریریاں، طلبہ کو حقیقی منصوبے بنانے اور ڈی بگنگ و ٹیسٹنگ کے ذریعے بہتر ہونے میں مدد دیتی ہیں۔"
		case quality.TopicMachineLearning:
			d.Abstract = fmt.Sprintf("%s میں یہ وضاحت کی گئی ہے کہ نظام ڈیٹا سے پیٹرنز سیکھ کر پیش گوئی یا فیصلے کیسے کرتے ہیں۔ اس میں تربیت اور جائزے کے عمل، سیکھنے کی عام اقسام، اور عملی استعمالات کا خلاصہ شامل ہے۔ مزید یہ کہ تعصب اور اوور فٹنگ جیسی حدود کی نشاندہی بھی کی گئی ہے۔", topic)
			d.Introduction = fmt.Sprintf("مشین لرننگ جدید %s میں اہم ہے کیونکہ کئی مسائل میں ہاتھ سے قواعد لکھنے کے بجائے مثالوں سے سیکھنا زیادہ مؤثر ہوتا ہے۔ یہ تحریر پہلے مشین لرننگ کی تعریف کرتی ہے، پھر تربیت اور جائزے کے عمل کی وضاحت کرتی ہے، اور آخر میں استعمالات اور حدود بیان کرتی ہے۔", subject)
			d.Conclusion = "آخر میں، مشین لرننگ اس وقت مفید ہے جب مسئلے میں ڈیٹا زیادہ ہو اور جائزہ احتیاط سے کیا جائے۔ مضبوط کام کے لیے واضح اہداف، معیاری ڈیٹا، اور مسلسل نگرانی ضروری ہے تاکہ غلطیوں اور تعصب کو کم کیا جا سکے۔"
		default:
			d.Abstract = fmt.Sprintf("%s %s میں ایک اہم تصور ہے۔ اس خلاصے میں بنیادی خیال، اہم تصورات، استعمالات، اور حدود بیان کی گئی ہیں، اور یہ بھی واضح کیا گیا ہے کہ یہ موضوع کیوں اہم ہے اور عملی طور پر اس کا جائزہ کیسے لیا جاتا ہے۔", topic, subject)
			d.Introduction = fmt.Sprintf("%s کو سمجھنا %s میں مضبوط بنیاد بنانے میں مدد دیتا ہے۔ یہ تحریر موضوع کی تعریف اور بنیادی تصورات سے آغاز کرتی ہے، پھر عملی استعمالات اور حدود کا جائزہ لے کر آخر میں اہم نکات کا خلاصہ پیش کرتی ہے۔", topic, subject)
			d.Conclusion = fmt.Sprintf("آخر میں، %s %s میں ایک اہم موضوع ہے۔ مضبوط سمجھ بوجھ واضح تعریفوں، ٹھوس مثالوں، اور فوائد و حدود کے محتاط جائزے سے حاصل ہوتی ہے۔", topic, subject)
		}
		return d
	}

	switch class {
	case quality.TopicPython:
		d.Abstract = fmt.Sprintf("%s explains Python as a high-level programming language used widely in %s. It summarizes key concepts beginners learn (syntax, data types, control flow, and functions) and how those concepts appear in simple programs. It also notes common pitfalls and good practices. Overall, it provides a clear roadmap for starting Python programming confidently.", topic, subject)
		d.Introduction = fmt.Sprintf("Python is widely taught because it is readable, versatile, and supported by a large ecosystem of libraries. It is used in %s for automation, data analysis, web development, and education. The discussion begins with a clear definition, then explains key building blocks and how beginners apply them through small, testable programs.", subject)
		d.Conclusion = "In conclusion, Python is a practical starting point for programming because it is readable and widely used. Strong fundamentals such as data types, control flow, functions, and libraries help students build real projects and improve through debugging and testing."
	case quality.TopicMachineLearning:
		d.Abstract = fmt.Sprintf("%s explains how systems learn patterns from data to make predictions or decisions. It summarizes the training-and-evaluation workflow, common learning types, and practical applications. It also highlights limitations such as bias and overfitting. Overall, it emphasizes careful goals, data quality, and testing.", topic)
		d.Introduction = fmt.Sprintf("Machine learning is important in modern %s because many problems benefit from learning from examples rather than hand-coded rules. The discussion begins by defining machine learning, then explains how training and evaluation work, and finally reviews applications and limitations.", subject)
		d.Conclusion = "In conclusion, machine learning is useful when problems are data-rich and evaluation is done carefully. Strong work depends on clear goals, good data, and ongoing monitoring to manage errors and bias."
	default:
		d.Abstract = fmt.Sprintf("%s is an important concept in %s. It summarizes the main idea, key concepts, applications, and limitations. It also explains why the topic matters and how it is evaluated in practice. Overall, it provides a structured overview for the discussion that follows.", topic, subject)
		d.Introduction = fmt.Sprintf("Understanding %s helps build stronger foundations in %s. The discussion begins by defining the topic and outlining core concepts, then evaluates applications and limitations before summarizing key takeaways.", topic, subject)
		d.Conclusion = fmt.Sprintf("In conclusion, %s is an important topic in %s. A strong understanding comes from clear definitions, concrete examples, and careful evaluation of trade-offs and limitations.", topic, subject)
	}
	return d
}
